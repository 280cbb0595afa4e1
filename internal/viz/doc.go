// Package viz renders closed-loop responses in the terminal and hosts the
// live tuning session.
//
// The session is a Bubble Tea program. It opens on the gains of a finished
// pipeline run, and every gain or setpoint change re-simulates the loop
// and redraws the response on a Braille [Canvas].
//
// # Key Bindings
//
//	j/k Tab - Select Kp, Ti, Td or the setpoint
//	h/l +/- - Scale the selection by 5%
//	z c m   - Apply Ziegler-Nichols, Cohen-Coon or manual gains
//	r       - Reset to the run's gains
//	t       - Cycle color themes
//	?       - Show help overlay
package viz
