// Command boxoffice is a terminal storefront for the booking API: browse
// shows, print a seat map, book and cancel seats, and read the admin
// dashboard.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
