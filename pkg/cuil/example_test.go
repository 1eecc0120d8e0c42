package cuil_test

import (
	"fmt"

	"legajo/pkg/cuil"
)

func ExampleCompute() {
	fmt.Println(cuil.Compute("20.123.456", "1"))
	fmt.Println(cuil.Compute("10000005", "1"))
	fmt.Printf("%q\n", cuil.Compute("1234567", "1"))
	// Output:
	// 20-20123456-6
	// 23-10000005-9
	// ""
}

func ExampleResult_Masked() {
	res, ok := cuil.Generate("33213232", "2")
	if !ok {
		return
	}
	fmt.Println(res.Masked())
	// Output: 27-33.213.232-1
}
