// Package api implements the PlantWatch REST API served under /api/v1.
//
// Endpoints:
//
//	GET  /api/v1/alerts               displayed alerts plus overflow count
//	POST /api/v1/alerts/{id}/dismiss  dismiss a non-persistent alert
//	POST /api/v1/alerts/{id}/action   run the alert's action
//	GET  /api/v1/snapshot             latest evaluated snapshot
//	GET  /api/v1/snapshots/recent     recent snapshot window
//	GET  /api/v1/health               plant health score and alert counts
//	GET  /api/v1/source               telemetry source status
//	POST /api/v1/actuate/water        forced watering
//	POST /api/v1/actuate/light        {"state": bool}
//
// All responses are JSON. Errors use {"error": "..."}.
package api
