// Package control derives PID gains from identified FOPDT models.
//
// Gains are always carried in both the parallel form (Kp, Ki, Kd) and the
// time-constant form (Kp, Ti, Td), with Ki = Kp/Ti and Kd = Kp·Td:
//
//	g, err := control.ZieglerNichols(dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1})
//	pid := g.TransferFunction() // (Kd·s² + Kp·s + Ki)/s
//
// Rules are looked up by name through [ParseRule] and [New]; user supplied
// gains go through [Manual].
package control
