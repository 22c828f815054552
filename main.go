package main

import "bookdesk/cmd"

func main() {
	cmd.Execute()
}
