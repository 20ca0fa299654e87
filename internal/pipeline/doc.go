// Package pipeline turns one inbound track payload into at most one alarm.
//
// Process runs decode, filter, transform and deliver synchronously. Every
// call produces a Result naming the stage the message ended at; observers
// (metrics, journal) receive that Result but cannot change it.
package pipeline
