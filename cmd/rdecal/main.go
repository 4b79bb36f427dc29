// Command rdecal analyses rotating disk electrode current traces: it removes
// baseline drift, detects current plateaus and fits a calibration curve.
//
// Usage:
//
//	rdecal analyze   --source DIR [--output DIR]
//	rdecal calibrate --source DIR <concentration>...
//	rdecal predict   --calibration FILE <current>...
//
// Run "rdecal help <command>" for the flags of each command.
package main

import "github.com/cwbudde/algo-rde/internal/cli"

func main() {
	cli.Execute()
}
