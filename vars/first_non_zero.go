package vars

// FirstNonZero returns the first value that differs from T's zero value,
// used to layer flag > config file > default settings.
func FirstNonZero[T comparable](values ...T) (ret T) {
	for _, value := range values {
		if value != ret {
			return value
		}
	}
	return
}
