// Package dusb owns the application-level message catalogue and its typed
// payload codecs.
//
// Ownership boundary:
// - message kind table and encode/decode dispatch
// - parameter, attribute and contents leaf codecs
// - device-reported error codes
//
// Messages ride inside virtual packets; fragmentation and acknowledgment
// live one layer down.
package dusb
