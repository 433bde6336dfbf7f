package adapter

import (
	"strings"

	"github.com/redcorridor/intel-cli/internal/model"
)

// Mentions derives the typed mention stream for one record. The order is
// fixed (criminal activities, police encounters, persons met, important
// points, one movement route) so that replaying an archive assigns every
// mention the same (report_id, mention_index) key it got the first time.
//
// Subject mentions need a subject name to resolve against; a record
// whose name could not be extracted only yields mentions for the persons
// it names.
func Mentions(rec *model.ExtractionRecord) []model.Mention {
	var mentions []model.Mention

	subject := func(typ model.MentionType, context, year, location string) model.Mention {
		return model.Mention{
			ReportID:    rec.ReportID,
			Index:       len(mentions),
			Type:        typ,
			RawName:     rec.Name,
			RawAliases:  rec.Aliases,
			Context:     context,
			Year:        year,
			Location:    location,
			UploadedAt:  rec.UploadedAt,
			Involvement: subjectInvolvement(rec),
			Filename:    rec.Filename,
			Group:       rec.Group,
			Area:        rec.Area,
			Bounty:      rec.Bounty,
		}
	}

	if rec.Name != "" {
		for _, a := range rec.Activities {
			mentions = append(mentions, subject(model.MentionCriminalActivity, a.Incident, a.Year, a.Location))
		}
		for _, e := range rec.Encounters {
			mentions = append(mentions, subject(model.MentionPoliceEncounter, e.Details, e.Year, ""))
		}
	}

	for _, p := range rec.PersonsMet {
		mentions = append(mentions, model.Mention{
			ReportID:    rec.ReportID,
			Index:       len(mentions),
			Type:        model.MentionQA,
			RawName:     p.Name,
			Context:     p.Rank,
			Year:        p.YearMet,
			UploadedAt:  rec.UploadedAt,
			Involvement: model.InvolvementSecondary,
			Filename:    rec.Filename,
			Group:       p.Group,
			Area:        rec.Area,
		})
	}

	if rec.Name != "" {
		for _, point := range rec.ImportantPoints {
			mentions = append(mentions, subject(model.MentionImportantPoint, point, "", ""))
		}
		if len(rec.Villages) > 0 {
			mentions = append(mentions, subject(model.MentionMovementRoute, strings.Join(rec.Villages, ", "), "", ""))
		}
	}

	return mentions
}

// subjectInvolvement classifies the report's subject. A subject tied to
// concrete events is primary; otherwise the extracted involvement text
// can raise the level above the "mentioned" floor.
func subjectInvolvement(rec *model.ExtractionRecord) model.Involvement {
	derived := model.InvolvementMentioned
	if len(rec.Activities) > 0 || len(rec.Encounters) > 0 {
		derived = model.InvolvementPrimary
	}
	return derived.Escalate(involvementHint(rec.Involvement))
}

// involvementHint maps the free-text involvement field onto a level.
// Unrecognized text carries no signal.
func involvementHint(s string) model.Involvement {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "primary"), strings.Contains(s, "main"),
		strings.Contains(s, "leader"), strings.Contains(s, "commander"):
		return model.InvolvementPrimary
	case strings.Contains(s, "secondary"), strings.Contains(s, "support"),
		strings.Contains(s, "courier"), strings.Contains(s, "sympathi"):
		return model.InvolvementSecondary
	}
	return ""
}
