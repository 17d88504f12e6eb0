package pipeline

import (
	"github.com/KaramelBytes/incidentlens/internal/aggregate"
	"github.com/KaramelBytes/incidentlens/internal/table"
	"github.com/KaramelBytes/incidentlens/internal/temporal"
	"github.com/KaramelBytes/incidentlens/internal/views"
)

type task struct {
	id views.ID
	fn func(*table.Table) (any, error)
}

func topN(col string, n int) func(*table.Table) (any, error) {
	return func(t *table.Table) (any, error) { return aggregate.TopN(t, col, n) }
}

func counts(col string) func(*table.Table) (any, error) {
	return func(t *table.Table) (any, error) { return aggregate.Counts(t, col) }
}

func spatialTasks(opt Options) []task {
	c := opt.Columns
	return []task{
		{views.IncidentsByPeriod, func(t *table.Table) (any, error) {
			return aggregate.ByPeriod(t, temporal.YearColumn, temporal.MonthColumn)
		}},
		{views.HeatMatrix, func(t *table.Table) (any, error) {
			periods, err := aggregate.ByPeriod(t, temporal.YearColumn, temporal.MonthColumn)
			if err != nil {
				return nil, err
			}
			return aggregate.Reshape(periods), nil
		}},
		{views.TopAreas, topN(c.Area, opt.TopN)},
		{views.TopCategories, topN(c.Category, opt.TopN)},
		{views.TopWeapons, topN(c.Weapon, opt.TopN)},
		{views.CaseStatus, counts(c.Status)},
		{views.StatusByTopCategory, func(t *table.Table) (any, error) {
			top, err := aggregate.TopN(t, c.Category, opt.TopCategories)
			if err != nil {
				return nil, err
			}
			return aggregate.CrossTabulate(t, c.Category, c.Status, aggregate.Keys(top))
		}},
		{views.Correlation, func(t *table.Table) (any, error) { return aggregate.Correlation(t), nil }},
		{views.Covariance, func(t *table.Table) (any, error) { return aggregate.Covariance(t), nil }},
		{views.HourHistogram, func(t *table.Table) (any, error) {
			return aggregate.HistogramRange(t, temporal.HourColumn, 24, 0, 24)
		}},
		{views.ColumnProfile, func(t *table.Table) (any, error) { return aggregate.Describe(t), nil }},
	}
}

func demographicTasks(opt Options) []task {
	c := opt.Columns
	return []task{
		{views.VictimSex, counts(c.VictimSex)},
		{views.TopDescents, topN(c.VictimDescent, opt.TopN)},
		{views.AgeHistogram, func(t *table.Table) (any, error) {
			return aggregate.Histogram(t, c.Age, opt.AgeBins)
		}},
	}
}
