// Package queue serializes gift-reveal presentations into a single visual
// overlay slot: one at a time, in arrival order, each running its full
// show/wait/hide/settle cycle before the next may begin.
package queue
