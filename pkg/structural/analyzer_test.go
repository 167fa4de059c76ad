package structural

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

func sqlUnit(content string) *models.SourceUnit {
	return &models.SourceUnit{Content: content, Language: models.LanguageSQL, SizeBytes: len(content)}
}

func TestAnalyze_SQLCreateTable(t *testing.T) {
	ddl := `-- order schema
CREATE TABLE orders (
    id INTEGER PRIMARY KEY,
    user_id INTEGER REFERENCES users(id),
    total NUMERIC(10,2) NOT NULL,
    status TEXT CHECK (status IN ('pending', 'shipped')),
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS public.users (
    id INTEGER,
    email TEXT
);`

	hints := Analyze(sqlUnit(ddl))

	assert.True(t, hints.HasIdentifier("orders"))
	assert.True(t, hints.HasIdentifier("users"), "schema qualifier is stripped")
	assert.True(t, hints.HasIdentifier("user_id"))
	assert.True(t, hints.HasIdentifier("total"), "NUMERIC(10,2) comma must not split the column")
	assert.True(t, hints.HasIdentifier("status"))
	assert.True(t, hints.HasIdentifier("email"))
	assert.False(t, hints.HasIdentifier("PRIMARY"), "constraint lines are not columns")

	require.Len(t, hints.CandidateSnippets, 2)
	assert.Equal(t, 2, hints.CandidateSnippets[0].StartLine)
	assert.Contains(t, hints.CandidateSnippets[0].Text, "CREATE TABLE orders")

	require.Len(t, hints.Tables, 2)
	assert.Equal(t, "orders", hints.Tables[0].Name)
	assert.Equal(t, "users", hints.Tables[1].Name)
}

func TestAnalyze_SQLTableColumnAssociation(t *testing.T) {
	hints := Analyze(sqlUnit("CREATE TABLE orders (id, user_id, status TEXT)"))

	require.Len(t, hints.Tables, 1)
	table := hints.Tables[0]
	assert.Equal(t, "orders", table.Name)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.Empty(t, table.Columns[0].DataType, "untyped column keeps an empty type")
	assert.Equal(t, "user_id", table.Columns[1].Name)
	assert.Equal(t, "status", table.Columns[2].Name)
	assert.Equal(t, "TEXT", table.Columns[2].DataType)
}

func TestAnalyze_SQLColumnTypeStopsAtConstraints(t *testing.T) {
	ddl := `CREATE TABLE orders (
    id INTEGER PRIMARY KEY,
    total NUMERIC(10,2) NOT NULL,
    user_id INTEGER REFERENCES users(id)
);`

	hints := Analyze(sqlUnit(ddl))

	require.Len(t, hints.Tables, 1)
	byName := map[string]string{}
	for _, c := range hints.Tables[0].Columns {
		byName[c.Name] = c.DataType
	}
	assert.Equal(t, "INTEGER", byName["id"])
	assert.Equal(t, "NUMERIC(10,2)", byName["total"])
	assert.Equal(t, "INTEGER", byName["user_id"])
}

func TestAnalyze_SQLQuotedDefaultDoesNotBreakDepth(t *testing.T) {
	ddl := `CREATE TABLE notes (
    id INTEGER,
    body TEXT DEFAULT '(empty)'
);`

	hints := Analyze(sqlUnit(ddl))
	assert.True(t, hints.HasIdentifier("notes"))
	assert.True(t, hints.HasIdentifier("body"))
	require.Len(t, hints.CandidateSnippets, 1)
}

func TestAnalyze_SQLWithoutCreateTableFallsBack(t *testing.T) {
	hints := Analyze(sqlUnit("SELECT order_total FROM archived_orders WHERE shipped_at IS NOT NULL;"))

	// No CREATE TABLE: the generic scan still surfaces identifiers.
	assert.True(t, hints.HasIdentifier("order_total"))
	assert.True(t, hints.HasIdentifier("archived_orders"))
	assert.Empty(t, hints.CandidateSnippets)
}

func TestAnalyze_Python(t *testing.T) {
	src := `from sqlalchemy import Column, Integer, String

class User(Base):
    __tablename__ = "users"

    id = Column(Integer, primary_key=True)
    email = Column(String)

    def full_name(self):
        return self.email
`

	hints := Analyze(&models.SourceUnit{Content: src, Language: models.LanguagePython})

	assert.True(t, hints.HasIdentifier("users"), "__tablename__ is surfaced")
	assert.True(t, hints.HasIdentifier("User"))
	assert.True(t, hints.HasIdentifier("id"))
	assert.True(t, hints.HasIdentifier("email"))
	assert.True(t, hints.HasIdentifier("full_name"))
	require.NotEmpty(t, hints.CandidateSnippets)
	assert.Contains(t, hints.CandidateSnippets[0].Text, "class User")

	require.Len(t, hints.Tables, 1)
	assert.Equal(t, "users", hints.Tables[0].Name)
	fields := make([]string, 0, len(hints.Tables[0].Columns))
	for _, c := range hints.Tables[0].Columns {
		fields = append(fields, c.Name)
	}
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "email")
}

func TestAnalyze_PythonClassWithoutTablenameHasNoTable(t *testing.T) {
	src := `class Helper:
    retries = 3

class Order(Base):
    __tablename__ = "orders"

    id = Column(Integer)
    status = Column(String)
`

	hints := Analyze(&models.SourceUnit{Content: src, Language: models.LanguagePython})

	require.Len(t, hints.Tables, 1, "only classes declaring a table qualify")
	assert.Equal(t, "orders", hints.Tables[0].Name)
	require.Len(t, hints.Tables[0].Columns, 2)
	assert.Equal(t, "id", hints.Tables[0].Columns[0].Name)
	assert.Equal(t, "status", hints.Tables[0].Columns[1].Name)
}

func TestAnalyze_TypeScript(t *testing.T) {
	src := `export interface Order {
  id: number;
  userId: number;
  status: string;
}

const TABLE_NAME = "orders";

function saveOrder(order: Order) {
  return db.insert(TABLE_NAME, order);
}
`

	hints := Analyze(&models.SourceUnit{Content: src, Language: models.LanguageTypeScript})

	assert.True(t, hints.HasIdentifier("Order"))
	assert.True(t, hints.HasIdentifier("userId"))
	assert.True(t, hints.HasIdentifier("status"))
	assert.True(t, hints.HasIdentifier("TABLE_NAME"))
	assert.True(t, hints.HasIdentifier("saveOrder"))
	require.NotEmpty(t, hints.CandidateSnippets)
}

func TestAnalyze_UnknownLanguageGenericScan(t *testing.T) {
	hints := Analyze(&models.SourceUnit{
		Content:  "record Employee { employee_id, department_code }",
		Language: models.LanguageUnknown,
	})

	assert.True(t, hints.HasIdentifier("Employee"))
	assert.True(t, hints.HasIdentifier("employee_id"))
	assert.True(t, hints.HasIdentifier("department_code"))
}

func TestAnalyze_EmptyAndNil(t *testing.T) {
	assert.Empty(t, Analyze(nil).CandidateIdentifiers)
	assert.Empty(t, Analyze(&models.SourceUnit{Content: "   "}).CandidateIdentifiers)
}

func TestAnalyze_IdentifierCap(t *testing.T) {
	content := ""
	for i := 0; i < MaxIdentifiers+50; i++ {
		content += fmt.Sprintf("identifier_%d ", i)
	}

	hints := Analyze(&models.SourceUnit{Content: content, Language: models.LanguageUnknown})
	assert.Len(t, hints.CandidateIdentifiers, MaxIdentifiers)
}

func TestAnalyze_DeduplicatesCaseInsensitively(t *testing.T) {
	hints := Analyze(&models.SourceUnit{
		Content:  "orders ORDERS Orders order_items",
		Language: models.LanguageUnknown,
	})

	assert.Len(t, hints.CandidateIdentifiers, 2)
	assert.Equal(t, "orders", hints.CandidateIdentifiers[0], "first-seen form wins")
}
