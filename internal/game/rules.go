package game

// NextGuesses records guess in the first empty slot of current.
//
// A full sequence yields ErrGameFinished. A sequence that is not a filled
// prefix followed by empty slots yields ErrGameInvalid. current is never
// modified.
func NextGuesses(current Guesses, guess uint8) (Guesses, error) {
	n := 0
	for n < NumberOfGuesses && !current[n].IsEmpty() {
		n++
	}
	for i := n; i < NumberOfGuesses; i++ {
		if !current[i].IsEmpty() {
			return current, ErrGameInvalid
		}
	}
	if n == NumberOfGuesses {
		return current, ErrGameFinished
	}

	next := current
	next[n] = Filled(guess)
	return next, nil
}

// DeriveStatus computes the status for guesses against target. A match wins
// even when it fills the last slot.
func DeriveStatus(guesses Guesses, target uint8) Status {
	switch {
	case guesses.Contains(target):
		return Won
	case guesses.Full():
		return Lost
	default:
		return Ongoing
	}
}
