// Package postman is a thin, rate-limited client for the Postman REST
// API. It fetches the workspace, collection and user metadata the
// governance engine scores; it performs no writes against the API.
package postman
