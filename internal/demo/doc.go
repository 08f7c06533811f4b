// Package demo provides the built-in research and analysis workers and a
// keyword-routing planner, so a complete hierarchy runs without model
// credentials. The operations emit the same progress events a real search or
// analysis backend would report.
package demo
