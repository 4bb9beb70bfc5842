// Package schedfile maps planner intents to host scheduler entries and
// owns the atomic read/backup/write/verify of schedule.json. The mapping
// half is pure and retains no state between calls.
package schedfile

import (
	"fmt"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/fppsem"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// IntentToEntry maps a planner Intent to a host scheduler entry. It
// performs no I/O and retains no state.
func IntentToEntry(in model.Intent) (model.Entry, error) {
	if in.Template.Type != model.TargetPlaylist && in.Template.Type != model.TargetSequence && in.Template.Type != model.TargetCommand {
		return model.Entry{}, fmt.Errorf("schedfile: unrecognized target type %q for uid %s", in.Template.Type, in.UID)
	}
	if in.Template.Target == "" {
		return model.Entry{}, fmt.Errorf("schedfile: empty target for uid %s", in.UID)
	}

	isCommand := in.Template.Type == model.TargetCommand

	startDate := dateString(in.Range.Start, in.Template.Start)
	endDate := dateString(in.Range.End, in.Range.Start)
	if isCommand {
		endDate = startDate
	}

	endTime := in.Template.End
	if isCommand {
		endTime = in.Template.Start.Add(1 * time.Minute)
	}

	isMidnightRollover := !isCommand && endTime.Hour() == 0 && endTime.Minute() == 0 && endTime.Second() == 0

	enabled := 1
	if !in.Template.Enabled {
		enabled = 0
	}

	entry := model.Entry{
		Enabled:   enabled,
		Day:       fppsem.DayEnum(in.Range.Days, in.Template.Start.Weekday()),
		StartTime: in.Template.Start.Format(fppsem.TimeLayout),
		EndTime:   fppsem.FormatClock(endTime, isMidnightRollover),
		Repeat:    fppsem.RepeatToEncoded(in.Template.Repeat),
		StartDate: startDate,
		EndDate:   endDate,
		StopType:  clampStopTypeInt(in.Template.StopType),
	}

	// Symbolic descriptors replace the absolute clock token; the host
	// resolves them per-day against its own sun-time estimate, so the
	// offset rides in the dedicated offset field.
	if s := in.Template.StartSymbolic; s != nil && fppsem.IsSymbolicTimeToken(s.Kind) {
		entry.StartTime = s.Kind
		entry.StartTimeOffset = s.Offset
	}
	if s := in.Template.EndSymbolic; s != nil && !isCommand && fppsem.IsSymbolicTimeToken(s.Kind) {
		entry.EndTime = s.Kind
		entry.EndTimeOffset = s.Offset
	}

	switch in.Template.Type {
	case model.TargetPlaylist:
		entry.Playlist = in.Template.Target
	case model.TargetSequence:
		entry.Playlist = in.Template.Target
		entry.Sequence = 1
	case model.TargetCommand:
		entry.Command = in.Template.Target
		entry.Args = in.Template.CommandArgs
	}

	return entry, nil
}

func clampStopTypeInt(s model.StopType) int {
	return int(fppsem.ClampStopType(int(s)))
}

func dateString(primary, fallback time.Time) string {
	if !primary.IsZero() {
		return primary.Format(fppsem.DateLayout)
	}
	return fallback.Format(fppsem.DateLayout)
}
