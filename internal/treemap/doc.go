// Package treemap computes squarified treemap layouts. Given an ordered
// sequence of non-negative weights and a target rectangle it partitions the
// rectangle into one sub-rectangle per weight, with areas proportional to the
// weights and aspect ratios kept close to 1.
//
// Output order always matches input order: slot i of the result belongs to
// weight i. Layouts are pure functions of their inputs and safe to compute
// concurrently.
package treemap
