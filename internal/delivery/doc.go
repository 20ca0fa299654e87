// Package delivery forwards alarms to the remote alarm server.
//
// Each alarm is sent exactly once as an HTTP POST. There is no retry, no
// queue and no circuit breaker: a failed send is logged and dropped. Only
// transport-level failures count as failures; an HTTP error status from the
// server is reported in the Outcome but the alarm still counts as delivered.
package delivery
