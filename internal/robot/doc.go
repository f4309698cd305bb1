// Package robot models the robot body: its position and heading on an
// arena.Grid, the range sensors rigidly attached to it, and the sense pass
// that folds sensor readings back into the working grid.
//
// A Robot is owned by one caller at a time. Turns and moves either apply
// fully or are rejected before any state changes.
package robot
