package screens

import (
	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/table"
)

func init() {
	registerCustomers()
	registerOrders()
	registerInvoices()
	registerUsers()
}

var newestFirst = table.Sort{Header: "createdAt", Order: table.Desc}

func registerCustomers() {
	Register(Definition{
		Key:      "customers",
		Group:    "Accounts",
		Label:    "Customers",
		Endpoint: "/customer/all",
		ItemsKey: "customers",
		Columns: []export.Header{
			{Title: "Name", Path: "name"},
			{Title: "Email", Path: "email"},
			{Title: "Phone", Path: "phone"},
			{Title: "Store", Path: "retail.name"},
			{Title: "City", Path: "address.city"},
			{Title: "Orders", Path: "orderCount", Kind: export.KindNumber},
			{Title: "Created", Path: "createdAt", Kind: export.KindDate},
		},
		Filters: []table.FilterConfig{
			{Key: "created", Label: "Created", Icon: "calendar", Type: table.FilterDateRange},
		},
		DefaultSort:       newestFirst,
		SearchPlaceholder: "Search name, email or phone",
	})
}

// The orders toolbar carries the Status/Store/Platform controls as ordinary
// filters.
func registerOrders() {
	Register(Definition{
		Key:      "orders",
		Group:    "Operations",
		Label:    "Orders",
		Endpoint: "/order/all",
		ItemsKey: "orders",
		Columns: []export.Header{
			{Title: "Order #", Path: "orderNumber"},
			{Title: "Status", Path: "status"},
			{Title: "Store", Path: "retail.name"},
			{Title: "Customer", Path: "customer.name"},
			{Title: "Driver", Path: "driver.name"},
			{Title: "Platform", Path: "platform"},
			{Title: "Total", Path: "total", Kind: export.KindMoney},
			{Title: "Delivery Fee", Path: "deliveryFee", Kind: export.KindMoney},
			{Title: "Created", Path: "createdAt", Kind: export.KindDate},
		},
		Filters: []table.FilterConfig{
			{Key: "status", Label: "Status", Icon: "flag", Type: table.FilterDropdown, Multiple: true, Options: []table.Option{
				{Value: "pending", Label: "Pending"},
				{Value: "assigned", Label: "Assigned"},
				{Value: "picked_up", Label: "Picked up"},
				{Value: "delivered", Label: "Delivered"},
				{Value: "cancelled", Label: "Cancelled"},
			}},
			{Key: "store", Label: "Store", Icon: "store", Type: table.FilterDropdown, Multiple: true},
			{Key: "platform", Label: "Platform", Icon: "plug", Type: table.FilterSingleSelect, Options: []table.Option{
				{Value: "shopify", Label: "Shopify"},
				{Value: "woocommerce", Label: "WooCommerce"},
				{Value: "api", Label: "API"},
				{Value: "manual", Label: "Manual"},
			}},
			{Key: "created", Label: "Created", Icon: "calendar", Type: table.FilterDateRange},
		},
		DefaultSort:       newestFirst,
		SearchPlaceholder: "Search order number or customer",
		Statistics:        "/order/statistics",
	})
}

func registerInvoices() {
	Register(Definition{
		Key:      "invoices",
		Group:    "Accounts",
		Label:    "Invoices",
		Endpoint: "/invoices",
		ItemsKey: "invoices",
		Columns: []export.Header{
			{Title: "Invoice #", Path: "number"},
			{Title: "Store", Path: "retail.name"},
			{Title: "Status", Path: "status"},
			{Title: "Amount", Path: "amount", Kind: export.KindMoney},
			{Title: "Period Start", Path: "periodStart", Kind: export.KindDate},
			{Title: "Period End", Path: "periodEnd", Kind: export.KindDate},
			{Title: "Due", Path: "dueDate", Kind: export.KindDate},
		},
		Filters: []table.FilterConfig{
			{Key: "status", Label: "Status", Icon: "flag", Type: table.FilterSingleSelect, Options: []table.Option{
				{Value: "draft", Label: "Draft"},
				{Value: "open", Label: "Open"},
				{Value: "paid", Label: "Paid"},
				{Value: "void", Label: "Void"},
			}},
			{Key: "due", Label: "Due date", Icon: "calendar", Type: table.FilterDateRange},
		},
		DefaultSort:       newestFirst,
		SearchPlaceholder: "Search invoice number or store",
	})
}

func registerUsers() {
	Register(Definition{
		Key:      "users",
		Group:    "Accounts",
		Label:    "Users",
		Endpoint: "/users/all",
		ItemsKey: "users",
		Columns: []export.Header{
			{Title: "First Name", Path: "firstName"},
			{Title: "Last Name", Path: "lastName"},
			{Title: "Email", Path: "email"},
			{Title: "Role", Path: "role"},
			{Title: "Active", Path: "active", Kind: export.KindBool},
			{Title: "Created", Path: "createdAt", Kind: export.KindDate},
		},
		Filters: []table.FilterConfig{
			{Key: "role", Label: "Role", Icon: "user", Type: table.FilterDropdown, Multiple: true, Options: []table.Option{
				{Value: "admin", Label: "Admin"},
				{Value: "driver", Label: "Driver"},
				{Value: "retail", Label: "Retail"},
			}},
		},
		DefaultSort:       newestFirst,
		SearchPlaceholder: "Search name or email",
	})
}
