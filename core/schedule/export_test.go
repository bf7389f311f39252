package schedule

import "time"

// test hooks

func SetNowFunc(f func() time.Time) { nowFunc = f }
func ResetNowFunc()                 { nowFunc = time.Now }
