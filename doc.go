// Package rescuelink is the gateway tier of the RescueLink emergency
// medical service. It fronts the EMS backend with a small HTTP API (SOS
// submission, ambulance tracking, route lookup, dashboards) and enforces
// the cookie-based route guard.
package rescuelink
