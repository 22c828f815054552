package config

// SchemaDescriptor is the read-only view of the store handed to the model when it
// writes SQL. Keep it in sync with the reporting replica.
const SchemaDescriptor = `Tables (read-only reporting replica):

book(id INT PK, title NVARCHAR, author NVARCHAR, isbn VARCHAR, category NVARCHAR,
     price DECIMAL(10,2), cost DECIMAL(10,2), stock_quantity INT, reorder_level INT,
     published_year INT, created_at DATETIME)

customer(id INT PK, full_name NVARCHAR, email VARCHAR, phone VARCHAR, created_at DATETIME)

orders(id INT PK, customer_id INT FK customer.id, status VARCHAR, order_date DATETIME,
       total_amount DECIMAL(10,2))
  status is one of 'Pending', 'Confirmed', 'Shipped', 'Delivered', 'Cancelled'.
  Revenue counts Delivered orders only.

order_item(id INT PK, order_id INT FK orders.id, book_id INT FK book.id, quantity INT,
           unit_price DECIMAL(10,2))

invoice(id INT PK, order_id INT FK orders.id, invoice_number VARCHAR, issued_at DATETIME,
        amount DECIMAL(10,2), status VARCHAR)
  status is one of 'Issued', 'Paid', 'Void'.

purchase_order(id INT PK, supplier NVARCHAR, status VARCHAR, ordered_at DATETIME,
               expected_at DATETIME)

purchase_order_item(id INT PK, purchase_order_id INT FK purchase_order.id,
                    book_id INT FK book.id, quantity INT, unit_cost DECIMAL(10,2))

promotion(id INT PK, name NVARCHAR, discount_percent DECIMAL(5,2), starts_at DATETIME,
          ends_at DATETIME, category NVARCHAR NULL)`

// LowStockThreshold is used when a book has no reorder_level of its own.
const LowStockThreshold = 5
