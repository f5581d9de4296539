package action

import (
	contractx "github.com/tgtg-tools/bagbot/action/contract"
	calendarx "github.com/tgtg-tools/bagbot/pkg/calendar"
)

// RegisterAll wires every handler into the dispatcher. The calendar
// publisher may be nil (reminders stay format-only).
func RegisterAll(d *Dispatcher, sessions contractx.Sessions, publisher *calendarx.Client, loginConf LoginConfig) {
	d.RegisterAuthed(CheckAvailability{})
	d.RegisterAuthed(CheckPickupTime{})
	d.RegisterAuthed(ReserveOrder{})
	d.RegisterAuthed(OrderStatus{})
	d.Register(NewSetReminder(publisher))
	d.Register(LoginStart{})
	d.Register(NewLoginSubmit(sessions, loginConf))
}
