// Package optim holds the curve-fitting helpers used to refine identified
// models: an exhaustive [GridSearch] for seeding, a Nelder-Mead
// [Minimize] over gonum/optimize, and goodness-of-fit figures ([Quality]).
package optim
