// Package runner executes the initialization steps of the boot sequence
// and performs the final handoff to the application server.
//
// Steps are external commands run strictly in order with inherited
// standard streams, so their output lands in the container log. The
// handoff uses process replacement (exec) on Unix: the server inherits the
// boot process's PID and signal delivery, which matters in a container —
// the server must be PID 1's effective workload so SIGTERM from the
// runtime reaches it directly.
package runner
