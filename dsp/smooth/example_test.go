package smooth_test

import (
	"fmt"

	"github.com/cwbudde/algo-rde/dsp/smooth"
)

func ExampleMovingAverage() {
	out, _ := smooth.MovingAverage([]float64{0, 3, 6, 9, 12}, 3)
	fmt.Printf("%.0f\n", out)

	// Output:
	// [1 3 6 9 11]
}
