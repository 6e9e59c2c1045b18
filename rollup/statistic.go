// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// statistic.go

package rollup

// Statistic is one named rollup output. Downstream systems key on
// (Name, Version), so both are part of the external contract.
type Statistic struct {
	Name          string
	Value         float64
	Version       int
	UserSubmitted bool
}
