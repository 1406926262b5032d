// Package http implements the HTTP surface of the sales dashboard: a JSON
// API under /api, the server-rendered pages and the chart page they embed.
// Handlers stay thin. They parse and validate the request, call the dashboard
// service and render the result or hand the error to the shared error handler.
//
// # Sessions
//
// Every workbook lives in a server-side session. The JSON API addresses the
// session by id in the path:
//
//	POST   /api/workbooks                       upload (multipart "file")
//	GET    /api/workbooks/{id}/sheets
//	GET    /api/workbooks/{id}/summary?months=Jan&months=Feb
//	GET    /api/workbooks/{id}/series?months=Jan&months=Feb
//	GET    /api/workbooks/{id}/product-margins
//	GET    /api/workbooks/{id}/export/series.csv
//	GET    /api/workbooks/{id}/export/margins.csv
//	GET    /api/workbooks/{id}/export/summary.xlsx
//	DELETE /api/workbooks/{id}
//
// The pages keep the id in the custos_session cookie instead.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/workbook/missing-column",
//	    "title": "Missing Column",
//	    "status": 422,
//	    "detail": "sheet \"Mar\" is missing column \"VENDA\"",
//	    "instance": "/api/workbooks/3f.../series",
//	    "error_code": "MISSING_COLUMN"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a real dashboard service fed with
// workbooks built in memory.
package http
