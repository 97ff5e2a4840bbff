package cluster

import "fmt"

func errSelfNotInTopology(self string) error {
	return fmt.Errorf("cluster: self endpoint %q not present in topology", self)
}
