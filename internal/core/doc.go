// Package core is the application layer of the operations dashboard.
//
// It sits between the web handlers and the delivery backend. Handlers parse
// requests into table queries, form submissions and orientation steps, and
// call a [Service]; the Service talks to the backend through the [API]
// interface and returns view data.
//
// # Service
//
// [NewService] wires the collaborators. Only the backend is required:
//
//	svc, err := core.NewService(core.Deps{
//	    API:      backend.New(cfg.Backend.URL(), cfg.Backend.Timeout),
//	    Audit:    audit.NewRecorder(store),
//	    CacheTTL: 30 * time.Second,
//	})
//
// # List Screens
//
// [Service.ListScreen] loads one page of a registered screen. Pages are
// cached per caller by the full query tuple, and a newer query on the same
// screen cancels an older one still in flight. Saves invalidate the screens
// that show the saved resource.
//
// [Service.ExportScreen] renders CSV. The "all" scope re-requests page 1
// with a large limit under the [ExportLimiter] and falls back to the loaded
// page as a "_partial" file when the backend fails.
//
// # Forms
//
// [Service.SaveForm] sends only the fields that differ from the stored
// record. An unchanged submission never reaches the backend.
//
// # Errors
//
// [MapError] turns any error into a [UserMessage] with a support code, and
// [HTTPStatus] picks the response status. See error_messages.go for the
// code table.
//
// # Maintenance
//
// [Service.StartMaintenance] purges old audit entries and sweeps expired
// cache pages until its context is cancelled.
package core
