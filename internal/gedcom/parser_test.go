package gedcom

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/heirloom/internal/models"
)

const sampleDocument = "\uFEFF0 HEAD\r\n" +
	"1 SOUR Heirloom\r\n" +
	"2 _TREE Lindqvist family\r\n" +
	"1 CHAR UTF-8\r\n" +
	"0 @I1@ INDI\r\n" +
	"1 NAME Karl Johan /Lindqvist/\r\n" +
	"1 SEX M\r\n" +
	"1 BIRT\r\n" +
	"2 DATE 22 januari 1850\r\n" +
	"2 PLAC Uppsala\r\n" +
	"1 BIRT\r\n" +
	"2 DATE 1851\r\n" +
	"1 DEAT\r\n" +
	"2 DATE ABT 1920\r\n" +
	"1 _DCAUSE\r\n" +
	"2 NOTE Lunginflammation\r\n" +
	"1 FAMS @F1@\r\n" +
	"0 @I2@ INDI\r\n" +
	"1 NAME Anna /Berg/\r\n" +
	"2 GIVN Anna Maria\r\n" +
	"1 SEX F\r\n" +
	"1 FAMS @F1@\r\n" +
	"0 @I3@ INDI\r\n" +
	"1 NAME Elsa /Lindqvist/\r\n" +
	"1 SEX X\r\n" +
	"1 RESI\r\n" +
	"2 PLAC Stockholm\r\n" +
	"2 NOTE Moved in\r\n" +
	"3 CONT with her aunt\r\n" +
	"3 CONC  in spring\r\n" +
	"1 _MILT\r\n" +
	"2 DATE 1890\r\n" +
	"1 FAMC @F1@\r\n" +
	"2 PEDI adopted\r\n" +
	"0 @F1@ FAM\r\n" +
	"1 HUSB @I1@\r\n" +
	"1 WIFE @I2@\r\n" +
	"1 CHIL @I3@\r\n" +
	"1 MARR\r\n" +
	"2 DATE 3 maj 1875\r\n" +
	"1 MARR\r\n" +
	"2 DATE 1876\r\n" +
	"0 TRLR\r\n"

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestParseDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDocument), WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, "Lindqvist family", doc.TreeName)
	require.Len(t, doc.Individuals, 3)
	require.Len(t, doc.Families, 1)

	karl := doc.Individuals["@I1@"]
	require.NotNil(t, karl)
	assert.Equal(t, "Karl Johan", karl.GivenName)
	assert.Equal(t, "Lindqvist", karl.Surname)
	assert.Equal(t, models.SexMale, karl.Sex)
	assert.Equal(t, "Lunginflammation", karl.DeathCause)
	assert.Equal(t, []string{"@F1@"}, karl.FAMS)

	birth := karl.Event(models.EventBirth)
	require.NotNil(t, birth)
	assert.Equal(t, "22 januari 1850", birth.Date)
	assert.Equal(t, "Uppsala", birth.Place)
	require.NotNil(t, birth.Year)
	assert.Equal(t, 1850, *birth.Year)
	assert.Len(t, karl.Events, 2, "second BIRT is dropped")

	anna := doc.Individuals["@I2@"]
	assert.Equal(t, "Anna Maria", anna.GivenName, "GIVN overrides the NAME value")
	assert.Equal(t, "Berg", anna.Surname)

	elsa := doc.Individuals["@I3@"]
	assert.Equal(t, models.SexUnknown, elsa.Sex)
	require.Len(t, elsa.Events, 1, "unknown _MILT is skipped")
	assert.Equal(t, "Moved in\nwith her aunt in spring", elsa.Events[0].Note)
	assert.Nil(t, elsa.Events[0].Year)
	assert.Equal(t, []FamilyLink{{Family: "@F1@", Relation: models.RelationAdopted}}, elsa.FAMC)

	fam := doc.Families["@F1@"]
	assert.Equal(t, "@I1@", fam.Husband)
	assert.Equal(t, "@I2@", fam.Wife)
	assert.Equal(t, []string{"@I3@"}, fam.Children)
	require.Len(t, fam.Events, 1)
	require.NotNil(t, fam.Events[0].Year)
	assert.Equal(t, 1875, *fam.Events[0].Year)

	require.Len(t, doc.Diagnostics, 2)
	assert.Equal(t, 11, doc.Diagnostics[0].Line)
	assert.Contains(t, doc.Diagnostics[0].Message, "duplicate BIRT")
	assert.Contains(t, doc.Diagnostics[1].Message, "duplicate MARR")

	ids := make([]string, 0, 3)
	for _, indi := range doc.OrderedIndividuals() {
		ids = append(ids, indi.ID)
	}
	assert.Equal(t, []string{"@I1@", "@I2@", "@I3@"}, ids)
}

func TestParseForwardReferences(t *testing.T) {
	input := `0 HEAD
0 @F7@ FAM
1 HUSB @I9@
1 CHIL @I8@
0 @I8@ INDI
1 NAME Per //
1 FAMC @F7@
0 @I9@ INDI
1 NAME /Olsson/
1 FAMS @F7@
0 TRLR
`
	doc, err := Parse(strings.NewReader(input), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, "@I9@", doc.Families["@F7@"].Husband)
	assert.Equal(t, "Per", doc.Individuals["@I8@"].GivenName)
	assert.Equal(t, "", doc.Individuals["@I8@"].Surname)
	assert.Equal(t, "", doc.Individuals["@I9@"].GivenName)
	assert.Equal(t, "Olsson", doc.Individuals["@I9@"].Surname)
}

func TestParseRecoversFromBadLines(t *testing.T) {
	input := `0 HEAD
0 @I1@ INDI
1 NAME Eva /Holm/
this is not a gedcom line
1 FAMS F1
1 BIRT
2 DATE 1801
0 TRLR
`
	doc, err := Parse(strings.NewReader(input), WithLogger(quietLogger()))
	require.NoError(t, err)

	eva := doc.Individuals["@I1@"]
	assert.Empty(t, eva.FAMS)
	require.Len(t, eva.Events, 1)
	require.Len(t, doc.Diagnostics, 2)
	assert.Equal(t, 4, doc.Diagnostics[0].Line)
	assert.Equal(t, 5, doc.Diagnostics[1].Line)
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		reason string
	}{
		{"starts below level 0", "1 NAME Eva\n0 TRLR\n", 1, "does not start"},
		{"garbage first line", "hello\n0 TRLR\n", 1, "does not start"},
		{"level jump", "0 HEAD\n0 @I1@ INDI\n1 BIRT\n3 DATE 1800\n", 4, "level 3 cannot follow level 1"},
		{"individual without xref", "0 HEAD\n0 INDI\n1 NAME Eva\n", 2, "INDI record has no cross reference id"},
		{"family without xref", "0 HEAD\n0 FAM\n", 2, "FAM record has no cross reference id"},
		{"duplicate xref", "0 @I1@ INDI\n1 NAME A\n0 @I1@ INDI\n1 NAME B\n", 3, "duplicate cross reference id @I1@"},
		{"empty", "\n\n", 2, "no records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), WithLogger(quietLogger()))
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.line, syntaxErr.Line)
			assert.Contains(t, syntaxErr.Reason, tt.reason)
			assert.True(t, errors.Is(err, models.ErrMalformedDocument))
			assert.True(t, models.IsKind(err, models.KindMalformedInput))
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		value, given, surname string
	}{
		{"Karl /Lindqvist/", "Karl", "Lindqvist"},
		{"/Lindqvist/", "", "Lindqvist"},
		{"Karl", "Karl", ""},
		{"Karl /Lindqvist/ Jr", "Karl Jr", "Lindqvist"},
		{"Karl /Lindqvist", "Karl", "Lindqvist"},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		given, surname := splitName(tt.value)
		assert.Equal(t, tt.given, given, tt.value)
		assert.Equal(t, tt.surname, surname, tt.value)
	}
}
