//go:build !linux

package affinity

import "fmt"

func pin(coreID int) error {
	return fmt.Errorf("affinity: core pinning is not supported on this platform")
}
