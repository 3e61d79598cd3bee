package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/orm/model"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store/redisstore"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
namespace: http://example.org/
entities:
  - name: Company
    attributes:
      - name: name
      - name: employees
        association: has_many
        target: Person
  - name: Person
    attributes:
      - name: name
      - name: age
        kind: integer
      - name: company
        association: belongs_to
        target: Company
`

// writeProject writes a schema and a config file and returns the config path
func writeProject(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(testSchema), 0o644))
	path := filepath.Join(dir, "graphmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	noColor := color.NoColor
	t.Cleanup(func() { color.NoColor = noColor })

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "graphmap", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "explain", "query", "types", "completion"})

	for _, flag := range []string{"config", "log-level", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	t.Cleanup(func() { Version, GitCommit = "dev", "unknown" })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "graphmap version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go")
}

func TestExplainCommand_Template(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "--config", path, "explain", "--type", "Person", `age > 30 AND name = "Ann"`)
	require.NoError(t, err)

	assert.Contains(t, out, "type:       Person <http://example.org/Person>")
	assert.Contains(t, out, "combinator: AND")
	assert.Contains(t, out, "Conditions\n  age > 30 AND name = \"Ann\"\n")
	assert.Contains(t, out, "Parameterized filter\n  age > ? AND name = ?\n  args: [30, Ann]\n")
	assert.Contains(t, out, "?s <"+schema.RDFType+"> <http://example.org/Person> .")
	assert.Contains(t, out, "?s <http://example.org/age> ?age .")
	assert.Contains(t, out, "FILTER(?age > 30)")
	assert.Contains(t, out, `FILTER(?name = "Ann")`)
}

func TestExplainCommand_DisjunctionHasNoSPARQL(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "--config", path, "explain", "--type", "Person", `name = "Ann" OR (age < 20 AND age > 10)`)
	require.NoError(t, err)
	assert.Contains(t, out, "combinator: OR")
	assert.Contains(t, out, "name = ? OR (age < ? AND age > ?)")
	assert.Contains(t, out, "args: [Ann, 20, 10]")
	assert.Contains(t, out, "SPARQL\n  not expressible:")
}

func TestExplainCommand_WhereResolvesAssociationKeys(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "--config", path, "explain", "--type", "Person", "--where", "company=urn:c:1", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "limit:      5")
	assert.Contains(t, out, "company = ?")
	assert.Contains(t, out, "args: [urn:c:1]")
	assert.Contains(t, out, "<urn:c:1> <"+schema.RDFType+"> <http://example.org/Company> .")
	assert.Contains(t, out, "?s <http://example.org/company> <urn:c:1> .")
	assert.Contains(t, out, "LIMIT 5")
}

func TestExplainCommand_Scope(t *testing.T) {
	path := writeProject(t, `schema: schema.yaml
scopes:
  - name: named
    type: Person
    template: "name IN (?)"
    limit: 2
`)

	out, err := run(t, "--config", path, "explain", "--type", "Person", "--scope", "named", "--arg", "Ann,Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "limit:      2")
	assert.Contains(t, out, "name IN (?)")
	assert.Contains(t, out, "args: [[Ann Bob]]")

	_, err = run(t, "--config", path, "explain", "--type", "Company", "--scope", "named", "--arg", "Ann,Bob")
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = run(t, "--config", path, "explain", "--type", "Person", "--scope", "named", `name = "Ann"`)
	assert.Error(t, err)
}

func TestExplainCommand_Errors(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	_, err := run(t, "--config", path, "explain", "--type", "Persn", `name = "x"`)
	var unknown *unknownTypeError
	require.True(t, errors.As(err, &unknown))
	opts := describe(err, true)
	assert.Equal(t, []string{"Person"}, opts.Suggestions)

	_, err = run(t, "--config", path, "explain", "--type", "Person", `name == "x"`)
	assert.True(t, ormerrors.IsParse(err))
	assert.Equal(t, "parse error", describe(err, true).Context)

	_, err = run(t, "--config", path, "explain", `name = "x"`)
	assert.ErrorContains(t, err, "--type is required")

	_, err = run(t, "--config", path, "explain", "--type", "Person", "--where", "novalue")
	assert.ErrorContains(t, err, "expected key=value")

	missing := filepath.Join(t.TempDir(), "graphmap.yaml")
	require.NoError(t, os.WriteFile(missing, []byte("schema: none.yaml\n"), 0o644))
	_, err = run(t, "--config", missing, "types")
	assert.True(t, ormerrors.IsConfiguration(err))
	assert.ErrorContains(t, err, "none.yaml")
}

func TestQueryCommand_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	registry := schema.NewRegistry()
	require.NoError(t, registry.LoadYAML(bytes.NewBufferString(testSchema)))
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mapper := model.NewMapper(registry, model.WithDefaultAdapter(redisstore.New(client, redisstore.WithPrefix("test:"))))

	companyType, err := mapper.Type("Company")
	require.NoError(t, err)
	personType, err := mapper.Type("Person")
	require.NoError(t, err)

	acme, err := mapper.Create(ctx, companyType, map[string]any{"id": "urn:c:1", "name": "Acme"})
	require.NoError(t, err)
	_, err = mapper.Create(ctx, personType, map[string]any{"id": "urn:p:1", "name": "Ann", "age": 34, "company": acme})
	require.NoError(t, err)
	_, err = mapper.Create(ctx, personType, map[string]any{"id": "urn:p:2", "name": "Bob", "age": 25})
	require.NoError(t, err)

	path := writeProject(t, `schema: schema.yaml
store:
  kind: redis
  redis:
    addr: `+mr.Addr()+`
    prefix: "test:"
`)

	out, err := run(t, "--config", path, "query", "--type", "Person", "age > 30")
	require.NoError(t, err)
	assert.Contains(t, out, "id       name  age  company\n")
	assert.Contains(t, out, "urn:p:1  Ann   34   urn:c:1\n")
	assert.NotContains(t, out, "Bob")
	assert.Contains(t, out, "\n1 record\n")

	out, err = run(t, "--config", path, "query", "--type", "Person", "--where", "name=Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "urn:p:2  Bob   25   -\n")

	out, err = run(t, "--config", path, "query", "--type", "Person", "--offset", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "urn:p:2")
	assert.NotContains(t, out, "urn:p:1")
}

func TestQueryCommand_MemoryStoreIsEmpty(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "--config", path, "query", "--type", "Company")
	require.NoError(t, err)
	assert.Contains(t, out, "id  name\n")
	assert.Contains(t, out, "0 records")
}

func TestQueryCommand_StoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	path := writeProject(t, "schema: schema.yaml\nstore:\n  kind: redis\n  redis:\n    addr: "+addr+"\n")
	_, err := run(t, "--config", path, "query", "--type", "Person")
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestTypesCommand(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "--config", path, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Company  http://example.org/Company  2")
	assert.Contains(t, out, "Person   http://example.org/Person   3")

	out, err = run(t, "--config", path, "types", "Person")
	require.NoError(t, err)
	assert.Contains(t, out, "Person <http://example.org/Person>")
	assert.Contains(t, out, "age      property     integer  http://example.org/age      -")
	assert.Contains(t, out, "company  belongs_to   -        http://example.org/company  Company")
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "graphmap")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestTypeFlagCompletion(t *testing.T) {
	path := writeProject(t, "schema: schema.yaml\n")

	out, err := run(t, "__complete", "query", "--config", path, "--type", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Company\nPerson\n")
}

func TestParseValues(t *testing.T) {
	assert.Equal(t, int64(30), parseValue("30"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, -0.5, parseValue("-0.5"))
	assert.Equal(t, 1500.0, parseValue("1.5e3"))
	assert.Equal(t, []any{2.5, int64(3)}, parseArg("2.5,3"))
	assert.Equal(t, "Ann", parseValue("Ann"))
	assert.Equal(t, "", parseValue(""))
	assert.Equal(t, []any{"Ann", int64(3)}, parseArg("Ann, 3"))

	conditions, err := parseConditions([]string{"name=Ann", "age=3", "name=Bob"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": []any{"Ann", "Bob"}, "age": int64(3)}, conditions)
}
