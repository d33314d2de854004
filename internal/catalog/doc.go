// Package catalog persists the inventory of Postman workspaces,
// collections and users fetched on each collection run. The governance
// engine evaluates this local copy rather than hitting the API again.
package catalog
