// Command curriculumctl inspects curriculum sources offline: it validates
// them, prints tier layouts, searches skills and exports workbooks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
