// Command devicesimd runs a loopback device server: the boundary shim
// of spec.md §2 item 7 in front of the in-memory simdevice.Device,
// useful for exercising the coordinator without real hardware
// (spec.md §8's single- and two-device scenarios).
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/madpsy/usrpsync/internal/deviceserver"
	"github.com/madpsy/usrpsync/internal/simdevice"
)

func main() {
	addr := flag.String("addr", ":5600", "listen address")
	antennas := flag.Int("antennas", 2, "simulated antenna count")
	clockRate := flag.Float64("clock-rate", 200e6, "simulated master clock rate, Hz")
	flag.Parse()

	dev := simdevice.New(*antennas, *clockRate, []float64{*clockRate, *clockRate / 2, *clockRate / 4}, "1.0.0")
	srv := deviceserver.New(dev)

	log.Printf("devicesimd: listening on %s (%d antennas, %.0f Hz master clock)", *addr, *antennas, *clockRate)
	if err := http.ListenAndServe(*addr, srv); err != nil {
		log.Fatalf("devicesimd: %v", err)
	}
}
