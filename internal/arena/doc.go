// Package arena owns the occupancy grid the robot explores.
//
// Responsibilities: cell state (explored, obstacle, virtual wall,
// move-through, path overlay), the spatial invariants tying those bits
// together, and the read-only search queries the exploration planner
// runs over the grid.
//
// Coordinates: Row grows upward and Col grows rightward, so heading Up
// increases Row. Row 0 is the bottom border.
//
// Dependency rule: arena depends on nothing else in this module. All cell
// mutation goes through Grid methods so virtual walls are re-established
// after every obstacle change.
package arena
