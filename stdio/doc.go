// Package stdio captures the guest's standard output and error streams.
//
// Descriptors 1 and 2 are not backed by filesystem nodes; every write is
// routed through a LineBuffer that assembles raw chunks into logical
// lines and delivers them to a caller-supplied Sink in issuance order.
package stdio
