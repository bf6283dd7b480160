// Package domain contains the core business concepts for the comps packet
// service. Keep this package free of transport (HTTP/Telegram) and
// infrastructure (Redis/Chrome/Postgres) concerns.
package domain
