package main

import (
	_ "time/tzdata"

	"github.com/frahmantamala/checkout-payments/cmd"
)

func main() {
	cmd.Execute()
}
