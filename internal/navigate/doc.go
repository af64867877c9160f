// Package navigate decides each avatar's next move with a right-hand wall
// follower over the shared maze map. Avatar 0 is the anchor and stays put.
package navigate
