package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bookdesk/config"
	"bookdesk/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend answers generateContent calls from a list of canned
// responses; the last entry repeats.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []cannedResponse
	calls     int
	paths     []string
	bodies    []Request
	apiKeys   []string
}

type cannedResponse struct {
	status int
	body   string
}

func (b *scriptedBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var req Request
	_ = json.Unmarshal(raw, &req)

	b.mu.Lock()
	idx := min(b.calls, len(b.responses)-1)
	b.calls++
	b.paths = append(b.paths, r.URL.Path)
	b.bodies = append(b.bodies, req)
	b.apiKeys = append(b.apiKeys, r.Header.Get("x-goog-api-key"))
	resp := b.responses[idx]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (b *scriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func textBody(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + quote(text) + `}]}}]}`
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func newTestService(t *testing.T, backend http.Handler, mutate func(*config.GeminiConfig)) *AIService {
	t.Helper()
	srv := httptest.NewServer(backend)
	cfg := config.GeminiConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Model:          "text-model",
		SpeechModel:    "speech-model",
		SpeechVoice:    "Kore",
		Timeout:        5 * time.Second,
		GateCapacity:   2,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := New(cfg, nil, nil)
	t.Cleanup(func() {
		_ = svc.Close()
		srv.Close()
	})
	return svc
}

func TestGenerate(t *testing.T) {
	t.Run("Should return the first text part and send the key", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{{http.StatusOK, textBody("SELECT 1")}}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Generate(t.Context(), "system", "question", WithTemperature(0), WithJSONResponse())
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", got)
		assert.Equal(t, "/models/text-model:generateContent", backend.paths[0])
		assert.Equal(t, "test-key", backend.apiKeys[0])

		req := backend.bodies[0]
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "system", req.SystemInstruction.Parts[0].Text)
		assert.Equal(t, "question", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.GenerationConfig)
		require.NotNil(t, req.GenerationConfig.Temperature)
		assert.Zero(t, *req.GenerationConfig.Temperature)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
	})

	t.Run("Should retry a 429 and return the later answer", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusTooManyRequests, `{"error":{"code":429,"message":"slow down","status":""}}`},
			{http.StatusOK, textBody("hello")},
		}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Generate(t.Context(), "", "hi")
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
		assert.Equal(t, 2, backend.Calls())
	})

	t.Run("Should not retry rejected credentials", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`},
		}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Generate(t.Context(), "", "hi")
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Empty(t, got)
		assert.Equal(t, 1, backend.Calls())
	})

	t.Run("Should degrade to no answer on a permanent error", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusNotFound, `{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`},
		}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Generate(t.Context(), "", "hi")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 1, backend.Calls())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`},
		}}
		svc := newTestService(t, backend, func(c *config.GeminiConfig) { c.MaxRetries = 2 })

		resp, err := svc.GenerateRaw(t.Context(), &Request{Contents: []Content{UserText("hi")}})
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, 3, backend.Calls())
	})

	t.Run("Should fail fast without an API key", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{{http.StatusOK, textBody("x")}}}
		svc := newTestService(t, backend, func(c *config.GeminiConfig) { c.APIKey = "" })

		_, err := svc.Generate(t.Context(), "", "hi")
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Zero(t, backend.Calls())
	})

	t.Run("Should return the context error when cancelled", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{{http.StatusOK, textBody("x")}}}
		svc := newTestService(t, backend, nil)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := svc.Generate(ctx, "", "hi")
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, backend.Calls())
	})

	t.Run("Should attach tool declarations", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusOK, `{"candidates":[{"content":{"parts":[{"functionCall":{"name":"get_order_details","args":{"order_id":"100"}}}]}}]}`},
		}}
		svc := newTestService(t, backend, nil)

		req := &Request{Contents: []Content{UserText("where is order 100")}}
		WithTools(FunctionDeclaration{Name: "get_order_details", Description: "order lookup"})(req)
		resp, err := svc.GenerateRaw(t.Context(), req)
		require.NoError(t, err)

		call := ExtractFunctionCall(resp)
		require.NotNil(t, call)
		assert.Equal(t, "get_order_details", call.Name)
		assert.Equal(t, "100", call.Args["order_id"])
		require.Len(t, backend.bodies[0].Tools, 1)
		assert.Equal(t, "get_order_details", backend.bodies[0].Tools[0].FunctionDeclarations[0].Name)
	})
}

func TestSpeak(t *testing.T) {
	t.Run("Should request audio from the speech model", func(t *testing.T) {
		audio := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
		backend := &scriptedBackend{responses: []cannedResponse{
			{http.StatusOK, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"` + audio + `"}}]}}]}`},
		}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Speak(t.Context(), "Revenue was 65.00")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []byte("pcm-bytes"), got.Data)
		assert.Equal(t, "audio/L16;rate=24000", got.MimeType)

		assert.Equal(t, "/models/speech-model:generateContent", backend.paths[0])
		cfg := backend.bodies[0].GenerationConfig
		require.NotNil(t, cfg)
		assert.Equal(t, []string{"AUDIO"}, cfg.ResponseModalities)
		require.NotNil(t, cfg.SpeechConfig)
		assert.Equal(t, "Kore", cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	})

	t.Run("Should skip blank text", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{{http.StatusOK, textBody("x")}}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Speak(t.Context(), "   ")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, backend.Calls())
	})

	t.Run("Should return nil when the model sends text only", func(t *testing.T) {
		backend := &scriptedBackend{responses: []cannedResponse{{http.StatusOK, textBody("no audio today")}}}
		svc := newTestService(t, backend, nil)

		got, err := svc.Speak(t.Context(), "hello")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRateGate(t *testing.T) {
	t.Run("Should never exceed its capacity", func(t *testing.T) {
		gate := NewRateGate(3)
		var peak atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := gate.Acquire(t.Context())
				if err != nil {
					return
				}
				defer release()
				n := int32(gate.Holders())
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, peak.Load(), int32(3))
		assert.Positive(t, peak.Load())
		assert.Zero(t, gate.Holders())
	})

	t.Run("Should give up waiting when the context ends", func(t *testing.T) {
		gate := NewRateGate(1)
		release, err := gate.Acquire(t.Context())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		noop, err := gate.Acquire(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		noop()
		assert.Equal(t, 1, gate.Holders())

		release()
		release()
		assert.Zero(t, gate.Holders())

		again, err := gate.Acquire(t.Context())
		require.NoError(t, err)
		again()
	})

	t.Run("Should clamp capacity to one", func(t *testing.T) {
		assert.Equal(t, 1, NewRateGate(0).Capacity())
	})

	t.Run("Should free slots of calls cancelled mid-request", func(t *testing.T) {
		backend := newSlowBackend(6)
		svc := newTestService(t, backend, func(c *config.GeminiConfig) { c.GateCapacity = 2 })

		stop := make(chan struct{})
		var peak atomic.Int32
		var sampler sync.WaitGroup
		sampler.Add(1)
		go func() {
			defer sampler.Done()
			for {
				peak.Store(max(peak.Load(), int32(svc.gate.Holders())))
				select {
				case <-stop:
					return
				case <-time.After(200 * time.Microsecond):
				}
			}
		}()

		const calls = 6
		cancels := make([]context.CancelFunc, calls)
		errs := make([]error, calls)
		answers := make([]string, calls)
		var wg sync.WaitGroup
		for i := range calls {
			ctx, cancel := context.WithCancel(t.Context())
			cancels[i] = cancel
			wg.Add(1)
			go func() {
				defer wg.Done()
				answers[i], errs[i] = svc.Generate(ctx, "system", strconv.Itoa(i))
			}()
		}

		// The first two requests to reach the backend hold both slots.
		inFlight := map[int]bool{}
		for len(inFlight) < 2 {
			select {
			case i := <-backend.arrived:
				inFlight[i] = true
			case <-time.After(2 * time.Second):
				t.Fatal("requests never reached the backend")
			}
		}
		cancelled := map[int]bool{}
		for i := range inFlight {
			cancelled[i] = true
		}
		for i := range calls {
			if !inFlight[i] {
				cancelled[i] = true // still queued on the gate
				break
			}
		}
		for i := range cancelled {
			cancels[i]()
		}

		wg.Wait()
		close(stop)
		sampler.Wait()
		for _, cancel := range cancels {
			cancel()
		}

		for i := range calls {
			if cancelled[i] {
				assert.ErrorIs(t, errs[i], context.Canceled, "call %d", i)
				continue
			}
			require.NoError(t, errs[i], "call %d", i)
			assert.Equal(t, "ok", answers[i], "call %d", i)
		}
		assert.LessOrEqual(t, peak.Load(), int32(2))
		assert.Equal(t, int32(2), peak.Load())
		assert.Zero(t, svc.gate.Holders())
	})
}

// slowBackend holds every request until the client goes away or a short
// delay passes, reporting the user payload of each arrival.
type slowBackend struct {
	arrived chan int
	delay   time.Duration
}

func newSlowBackend(buffer int) *slowBackend {
	return &slowBackend{arrived: make(chan int, buffer), delay: 300 * time.Millisecond}
}

func (b *slowBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if i, err := strconv.Atoi(req.Contents[0].Parts[0].Text); err == nil {
		select {
		case b.arrived <- i:
		default:
		}
	}

	select {
	case <-r.Context().Done():
		return
	case <-time.After(b.delay):
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(textBody("ok")))
}

func TestClassify(t *testing.T) {
	t.Run("Should treat rate limits and server errors as transient", func(t *testing.T) {
		assert.True(t, newAPIError(http.StatusTooManyRequests, []byte(`{}`)).Transient())
		assert.True(t, newAPIError(http.StatusBadRequest, []byte(`{"error":{"message":"x","status":"RESOURCE_EXHAUSTED"}}`)).Transient())
		assert.True(t, newAPIError(http.StatusBadRequest, []byte(`{"error":{"message":"Quota exceeded for requests"}}`)).Transient())
		assert.True(t, newAPIError(http.StatusInternalServerError, []byte("boom")).Transient())
	})

	t.Run("Should map credential failures to ErrUnavailable", func(t *testing.T) {
		for _, e := range []*APIError{
			newAPIError(http.StatusUnauthorized, []byte("nope")),
			newAPIError(http.StatusForbidden, []byte(`{"error":{"message":"denied","status":"PERMISSION_DENIED"}}`)),
			newAPIError(http.StatusBadRequest, []byte(`{"error":{"message":"API key expired. Please renew the API key."}}`)),
		} {
			assert.ErrorIs(t, e, ErrUnavailable, e.Error())
			assert.False(t, e.Transient())
		}
	})

	t.Run("Should leave other client errors permanent", func(t *testing.T) {
		e := newAPIError(http.StatusBadRequest, []byte(`{"error":{"message":"Invalid JSON payload","status":"INVALID_ARGUMENT"}}`))
		assert.False(t, e.Transient())
		assert.NotErrorIs(t, e, ErrUnavailable)
		assert.Equal(t, "INVALID_ARGUMENT", e.Status)
		assert.True(t, strings.Contains(e.Error(), "Invalid JSON payload"))
	})
}

func TestExtract(t *testing.T) {
	t.Run("Should tolerate missing candidates and content", func(t *testing.T) {
		assert.Empty(t, ExtractText(nil))
		assert.Empty(t, ExtractText(&Response{}))
		assert.Empty(t, ExtractText(&Response{Candidates: []Candidate{{}}}))
		assert.Nil(t, ExtractFunctionCall(&Response{Candidates: []Candidate{{}}}))
		assert.Nil(t, ExtractAudio(nil))
	})

	t.Run("Should skip blank parts and undecodable audio", func(t *testing.T) {
		resp := &Response{Candidates: []Candidate{
			{Content: &Content{Parts: []Part{{Text: "  "}, {InlineData: &InlineData{Data: "%%%"}}}}},
			{Content: &Content{Parts: []Part{
				{Text: "second candidate"},
				{InlineData: &InlineData{MimeType: "audio/wav", Data: base64.StdEncoding.EncodeToString([]byte{1})}},
			}}},
		}}
		assert.Equal(t, "second candidate", ExtractText(resp))
		audio := ExtractAudio(resp)
		require.NotNil(t, audio)
		assert.Equal(t, []byte{1}, audio.Data)
	})
}

func TestPrompts(t *testing.T) {
	t.Run("Should carry the schema and conversation into the SQL prompt", func(t *testing.T) {
		sys, user := BuildSQLPrompt("and last month?", nil, config.SchemaDescriptor)
		assert.Contains(t, sys, "order_item(")
		assert.Contains(t, sys, OutOfScopeSentinel)
		assert.NotContains(t, user, "Conversation so far")

		_, user = BuildSQLPrompt("and last month?", []models.Turn{{Role: "user", Text: "sales of Dune"}}, config.SchemaDescriptor)
		assert.Contains(t, user, "user: sales of Dune")
		assert.True(t, strings.HasSuffix(user, "and last month?"))
	})

	t.Run("Should embed JSON function results unquoted", func(t *testing.T) {
		_, user := BuildToolAnswerPrompt("where is 100", "get_order_details", map[string]any{"order_id": "100"}, `{"found":true}`)
		assert.Contains(t, user, `"function_result":{"found":true}`)

		_, user = BuildToolAnswerPrompt("where is 100", "get_order_details", nil, "plain words")
		assert.Contains(t, user, `"function_result":"plain words"`)
	})

	t.Run("Should send result columns in query order", func(t *testing.T) {
		results := []models.SQLExecutionResult{{
			Alias:       "top_titles",
			Description: "Best sellers by revenue",
			Columns:     []string{"title", "revenue", "quantity"},
			Rows:        []map[string]any{{"title": "Dune", "revenue": 120.5, "quantity": 9}},
		}}
		_, user := BuildSynthesisPrompt("what sold best?", nil, nil, config.SchemaDescriptor, "one query", results)

		var payload struct {
			Results []struct {
				Description string           `json:"description"`
				Columns     []string         `json:"columns"`
				Rows        []map[string]any `json:"rows"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(user), &payload))
		require.Len(t, payload.Results, 1)
		assert.Equal(t, []string{"title", "revenue", "quantity"}, payload.Results[0].Columns)
		assert.Equal(t, "Dune", payload.Results[0].Rows[0]["title"])
		assert.Less(t, strings.Index(user, `"columns"`), strings.Index(user, `"rows"`))
	})
}
