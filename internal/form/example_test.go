package form_test

import (
	"fmt"

	"docforms/internal/form"
)

func ExampleLabel() {
	fmt.Println(form.Label("work_experience"))
	fmt.Println(form.Label("firstName"))
	// Output:
	// Work Experience
	// First Name
}
