//go:build !unix

package preflight

func nofileLimit() (uint64, bool, error) {
	return 0, false, nil
}
