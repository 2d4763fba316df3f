// opgraph lists the operators available to build graphs, prints their documentation, and builds
// example graphs.
//
// Operator schemas are read from the builtin manifests, plus the HCL manifests given with --schemas
// or OPGRAPH_SCHEMAS.
package main

import (
	"context"
	"os"

	"k8s.io/klog/v2"
)

func main() {
	err := NewCLI().ExecuteContext(context.Background())
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
