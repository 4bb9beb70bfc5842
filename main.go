package main

import "github.com/robbiet76/GoogleCalendarScheduler-sub000/cmd"

func main() {
	cmd.Execute()
}
