// Package tf implements rational transfer functions of single-input,
// single-output linear time-invariant models.
//
// A [TF] is a numerator/denominator pair of [Poly] values in descending
// power. Blocks compose by [Series] (polynomial products) and [Feedback]
// (N/(D+gN)); pure delay is expressed through the rational surrogate
// returned by [Pade]:
//
//	g, _ := tf.FirstOrder(2, 5)          // 2/(5s+1)
//	d, _ := tf.Pade(1.5, 1)              // (-0.75s+1)/(0.75s+1)
//	open := tf.Series(d, g)
//	pid := tf.PID(1.2, 0.3, 0.4)
//	closed, err := tf.UnityFeedback(tf.Series(pid, open))
//
// No pole-zero cancellation is performed; results are numerically
// identical to the unreduced product.
package tf
