package windows

import (
	"github.com/samber/lo"
)

// Correlate joins every release block with its consumer and enterprise
// lifecycle records. Either every block is matched in both tiers or no
// record is returned at all.
func Correlate(blocks []ReleaseBlock, consumer, enterprise []LifecycleRecord) ([]ReleaseRecord, error) {
	records := make([]ReleaseRecord, 0, len(blocks))
	for _, block := range blocks {
		c, ok := findLifecycle(consumer, block.ReleaseName)
		if !ok {
			return nil, &MissingCorrelationError{ReleaseName: block.ReleaseName, Tier: TierConsumer}
		}
		e, ok := findLifecycle(enterprise, block.ReleaseName)
		if !ok {
			return nil, &MissingCorrelationError{ReleaseName: block.ReleaseName, Tier: TierEnterprise}
		}

		consumerEoL, enterpriseEoL := c.EndOfLifeDate, e.EndOfLifeDate
		records = append(records, ReleaseRecord{
			ReleaseName:       block.ReleaseName,
			ConsumerEoLDate:   &consumerEoL,
			EnterpriseEoLDate: &enterpriseEoL,
			Builds:            append([]Build(nil), block.Builds...),
		})
	}
	return records, nil
}

// FindRelease returns the record of the named feature update.
func FindRelease(name string, records []ReleaseRecord) (ReleaseRecord, error) {
	record, ok := lo.Find(records, func(r ReleaseRecord) bool {
		return r.ReleaseName == name
	})
	if !ok {
		return ReleaseRecord{}, &NotFoundError{ReleaseName: name}
	}
	return record, nil
}

func findLifecycle(records []LifecycleRecord, name string) (LifecycleRecord, bool) {
	return lo.Find(records, func(r LifecycleRecord) bool {
		return r.ReleaseName == name
	})
}
