// Package journal records alarm delivery outcomes in the delivery_journal
// table and pages through them for the status API.
//
// The journal is write-mostly: one row per delivery attempt, no image data
// and no request bodies. Rows are never read back for redelivery.
package journal
