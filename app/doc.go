// Package app implements the control frame of the simulator: a Bubble Tea
// terminal UI that starts, pauses, checks, resumes and stops runs of an
// arena.Manager and shows every combatant's health while they fight.
//
// The entry point is Run.
package app
