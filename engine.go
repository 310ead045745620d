package main

import "time"

// PeriodRecord is the state of the investment over one compounding period
type PeriodRecord struct {
	Period          int
	PeriodEnd       time.Time // zero unless the scenario has a start date
	StartingBalance float64
	Contribution    float64 // total deposited this period, see Timing
	Timing          ContributionTiming
	GrossInterest   float64
	TaxPaid         float64
	NetInterest     float64
	EndingBalance   float64
}

// ContributionAtStart is the deposit made before interest accrued
func (r PeriodRecord) ContributionAtStart() float64 {
	if r.Timing == ContributeAtStart {
		return r.Contribution
	}
	return 0
}

// ContributionAtEnd is the deposit made after interest accrued
func (r PeriodRecord) ContributionAtEnd() float64 {
	if r.Timing == ContributeAtEnd {
		return r.Contribution
	}
	return 0
}

// Run validates cfg and accrues every period of the scenario
func Run(cfg ScenarioConfig) (*ScenarioResult, error) {
	scenario, err := NewScenario(cfg)
	if err != nil {
		return nil, err
	}
	return scenario.Run(), nil
}

// Run accrues interest period by period. Values are never rounded here.
func (s *Scenario) Run() *ScenarioResult {
	records := make([]PeriodRecord, 0, s.Periods)
	balance := s.Config.InitValue
	taxRate := s.Config.TaxRate

	for i := 1; i <= s.Periods; i++ {
		rec := PeriodRecord{
			Period:          i,
			StartingBalance: balance,
			Timing:          s.Timing,
			Contribution:    float64(s.Schedule.Events(i)) * s.Config.Contribution,
		}
		if s.Dated() {
			rec.PeriodEnd = PeriodEnd(s.StartDate, s.Compounding, i)
		}

		if s.Timing == ContributeAtStart {
			balance += rec.Contribution
		}

		rec.GrossInterest = balance * s.PeriodRate
		rec.TaxPaid = rec.GrossInterest * taxRate
		rec.NetInterest = rec.GrossInterest - rec.TaxPaid
		balance += rec.NetInterest

		if s.Timing == ContributeAtEnd {
			balance += rec.Contribution
		}

		rec.EndingBalance = balance
		records = append(records, rec)
	}

	return &ScenarioResult{scenario: *s, records: records}
}
