package iara_test

import (
	"fmt"

	"github.com/andsmedeiros/iara/bus"
	"github.com/andsmedeiros/iara/eventloop"
	"github.com/andsmedeiros/iara/promise"
)

type tempReading struct {
	Celsius float64
}

// A host drives the loop with its own monotonic counter; handlers settle
// promises and publish typed messages, which in turn run more handlers.
func Example() {
	loop := eventloop.New()
	sensors := bus.New()

	bus.Listen(sensors, func(r tempReading) {
		fmt.Printf("reading: %.1f°C\n", r.Celsius)
	})

	// Sample the sensor every 10 counter units.
	loop.SetInterval(func(*eventloop.Event) {
		bus.Shout(sensors, tempReading{Celsius: 21.5})
	}, 10)

	// Race a slow acquisition against a deadline.
	acquisition := promise.New[string]()
	guarded := eventloop.Timeout(loop, 15, acquisition)
	promise.ThenVoid(guarded, func(r eventloop.TimeoutResult[string]) {
		if r.TimedOut {
			fmt.Println("acquisition timed out")
		} else {
			fmt.Println("acquired:", r.Value)
		}
	}, nil)

	for now := uint64(0); now <= 20; now += 5 {
		loop.Process(now)
	}

	// Output:
	// reading: 21.5°C
	// acquisition timed out
	// reading: 21.5°C
}
