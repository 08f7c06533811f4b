// Package supervisor composes workers into a hierarchy: a supervisor is an
// agent runtime whose operations are synthetic delegations, one per
// registered worker.
//
// A delegation invokes the worker through its adapter and relays every item
// the worker produces into the supervisor's stream, so a consumer observes
// nested paths such as [supervisor, research_agent]. The worker's final
// answer becomes the delegation's tool result. A worker that hands control
// back leaves a handoff marker in the supervisor's conversation, and the
// supervisor keeps reasoning.
package supervisor
