package bplist

import "time"

// NopHandler is a Handler whose methods all do nothing and report no error.
// Embed it in a struct that only cares about a handful of callbacks and
// override the rest.
type NopHandler struct{}

func (NopHandler) Version(string) error   { return nil }
func (NopHandler) Null() error            { return nil }
func (NopHandler) Bool(bool) error        { return nil }
func (NopHandler) Int(int64) error        { return nil }
func (NopHandler) Float(float64) error    { return nil }
func (NopHandler) Time(time.Time) error   { return nil }
func (NopHandler) Bytes([]byte) error     { return nil }
func (NopHandler) String(string) error    { return nil }
func (NopHandler) UID([]byte) error       { return nil }
func (NopHandler) BeginArray(int) error   { return nil }
func (NopHandler) EndArray() error        { return nil }
func (NopHandler) BeginDict(int) error    { return nil }
func (NopHandler) EndDict() error         { return nil }
func (NopHandler) BeginSet(int) error     { return nil }
func (NopHandler) EndSet() error          { return nil }
