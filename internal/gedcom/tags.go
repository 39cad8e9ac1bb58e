package gedcom

import "github.com/vikasavnish/heirloom/internal/models"

// Record and structure tags.
const (
	tagHead    = "HEAD"
	tagTrailer = "TRLR"
	tagIndi    = "INDI"
	tagFam     = "FAM"
	tagName    = "NAME"
	tagGiven   = "GIVN"
	tagSurname = "SURN"
	tagSex     = "SEX"
	tagFamc    = "FAMC"
	tagFams    = "FAMS"
	tagPedi    = "PEDI"
	tagHusb    = "HUSB"
	tagWife    = "WIFE"
	tagChil    = "CHIL"
	tagDate    = "DATE"
	tagPlace   = "PLAC"
	tagNote    = "NOTE"
	tagCont    = "CONT"
	tagConc    = "CONC"
	tagTree    = "_TREE"
	tagCause   = "_DCAUSE"
)

var personEventTags = map[string]models.EventType{
	"BIRT": models.EventBirth,
	"DEAT": models.EventDeath,
	"BAPM": models.EventBaptism,
	"BURI": models.EventFuneral,
	"EMIG": models.EventEmigration,
	"IMMI": models.EventImmigration,
	"RESI": models.EventResidence,
	"GRAD": models.EventGraduation,
	"CONF": models.EventConfirmation,
	"CREM": models.EventCremation,
}

var familyEventTags = map[string]models.FamilyEventType{
	"MARR": models.FamilyEventMarriage,
	"DIV":  models.FamilyEventDivorce,
	"MARB": models.FamilyEventBanns,
	"ENGA": models.FamilyEventEngagement,
}

var (
	personEventTagOf = invert(personEventTags)
	familyEventTagOf = invert(familyEventTags)
)

// PEDI values map onto child relations. Anything unrecognised is biological.
var pedigrees = map[string]models.ChildRelation{
	"birth":   models.RelationBiological,
	"adopted": models.RelationAdopted,
	"foster":  models.RelationFoster,
	"unknown": models.RelationUnknown,
}

var pedigreeOf = invert(pedigrees)

func invert[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
