// Package domain defines the world model for the turn engine: world state,
// nodes, entities, interactions, and turn summaries.
//
// Values in this package are plain data with pure behavior. Mutation during
// a turn happens on a deep copy of the committed state (see Clone on
// WorldState); the scheduler commits or discards the copy wholesale.
package domain
