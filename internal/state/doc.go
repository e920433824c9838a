// Package state owns the single shared overlay configuration document.
//
// All reads return snapshot copies and all writes go through named transitions,
// so every invariant (volume clamping, enabled implies identifier) is enforced
// at exactly one point. A mutex serializes transitions; no caller ever holds a
// reference to the live document.
package state
