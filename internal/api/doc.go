// Package api provides the EVA backend REST client.
//
// Endpoints:
//   - GET /api/health/          {"status":"ok"} or 503 {"status":"unavailable","checks":{...}}
//   - GET /api/modules/status   {"emotional_analyzer":"loaded"}
//   - GET /media/...            synthesized speech audio
package api
