package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize_TxOriginScenario(t *testing.T) {
	records := []Record{
		NewRecord("1", "uses tx.origin for auth"),
		NewRecord("2", "safe contract"),
	}
	table := CategoryTable{
		"tx_origin": {"tx.origin"},
		"overflow":  {"overflow"},
	}

	result := Categorize(records, table)

	require.Len(t, result, 2)
	assert.Equal(t, 1, result["tx_origin"].Count)
	assert.Equal(t, []string{"1"}, result["tx_origin"].MatchedIDs)
	assert.Equal(t, 0, result["overflow"].Count)
	assert.Empty(t, result["overflow"].MatchedIDs)
}

func TestCategorize_SameCategoryCountedOnce(t *testing.T) {
	records := []Record{NewRecord("1", "reentrancy and reentrant issue")}
	table := CategoryTable{"reentrancy": {"reentrancy", "reentrant"}}

	result := Categorize(records, table)

	assert.Equal(t, 1, result["reentrancy"].Count)
	assert.Equal(t, []string{"1"}, result["reentrancy"].MatchedIDs)
}

func TestCategorize_DuplicateIDsCountedOnce(t *testing.T) {
	records := []Record{
		NewRecord("0xabc", "owner check via tx.origin"),
		NewRecord("0xabc", "tx.origin again"),
		NewRecord("0xdef", "plain transfer"),
	}
	table := CategoryTable{"tx_origin": {"tx.origin"}}

	result := Categorize(records, table)

	assert.Equal(t, 1, result["tx_origin"].Count)
	assert.Equal(t, []string{"0xabc"}, result["tx_origin"].MatchedIDs)
}

func TestCategorize_DuplicateIDLaterMatch(t *testing.T) {
	records := []Record{
		NewRecord("7", "nothing here"),
		NewRecord("7", "uses delegatecall"),
	}
	result := Categorize(records, CategoryTable{"delegatecall": {"delegatecall"}})

	assert.Equal(t, 1, result["delegatecall"].Count)
	assert.Equal(t, []string{"7"}, result["delegatecall"].MatchedIDs)
}

func TestCategorize_CategoriesAreIndependent(t *testing.T) {
	records := []Record{NewRecord("p1", "An integer overflow enables a reentrancy exploit")}
	table := CategoryTable{
		"overflow":   {"integer overflow"},
		"reentrancy": {"reentrancy"},
	}

	result := Categorize(records, table)

	assert.Equal(t, 1, result["overflow"].Count)
	assert.Equal(t, 1, result["reentrancy"].Count)
}

func TestCategorize_EmptyRecords(t *testing.T) {
	table := CategoryTable{
		"a": {"x"},
		"b": {"y", "z"},
	}

	result := Categorize(nil, table)

	require.Len(t, result, 2)
	for category, m := range result {
		assert.Equal(t, 0, m.Count, category)
		assert.Empty(t, m.MatchedIDs, category)
	}
}

func TestCategorize_EmptyTable(t *testing.T) {
	result := Categorize([]Record{NewRecord("1", "anything")}, CategoryTable{})
	assert.Empty(t, result)
}

func TestCategorize_EmptyTriggerList(t *testing.T) {
	records := []Record{
		NewRecord("1", "reentrancy"),
		NewRecord("2", ""),
	}
	table := CategoryTable{"nothing": {}, "blank": {""}}

	result := Categorize(records, table)

	assert.Equal(t, 0, result["nothing"].Count)
	assert.Equal(t, 0, result["blank"].Count)
}

func TestCategorize_CaseInsensitive(t *testing.T) {
	records := []Record{NewRecord("1", "Uses DELEGATECALL", "Front-Running attack")}
	table := CategoryTable{
		"delegatecall":  {"DelegateCall"},
		"front_running": {"front-running"},
	}

	result := Categorize(records, table)

	assert.Equal(t, 1, result["delegatecall"].Count)
	assert.Equal(t, 1, result["front_running"].Count)
}

func TestCategorize_FieldsAreJoinedWithSpace(t *testing.T) {
	// "access" at the end of the title and "control" at the start of the
	// abstract still form the phrase once joined.
	records := []Record{NewRecord("1", "Improving access", "control in DeFi")}
	table := CategoryTable{"access_control": {"access control"}}

	result := Categorize(records, table)

	assert.Equal(t, 1, result["access_control"].Count)
}

func TestCategorize_MissingFieldsAreEmpty(t *testing.T) {
	records := []Record{{ID: "1"}, NewRecord("2", "", "")}
	table := CategoryTable{"x": {"x"}}

	result := Categorize(records, table)

	assert.Equal(t, 0, result["x"].Count)
}

func TestCategorize_CountEqualsMatchedIDs(t *testing.T) {
	records := []Record{
		NewRecord("1", "fuzzing and formal verification"),
		NewRecord("2", "static analysis tool"),
		NewRecord("3", "audit report"),
		NewRecord("4", "nothing relevant"),
	}
	table := CategoryTable{
		"fuzzing":             {"fuzzing", "fuzzer"},
		"formal_verification": {"formal verification", "proof"},
		"static_analysis":     {"static analysis"},
		"audit":               {"audit", "code review"},
	}

	result := Categorize(records, table)

	ids := map[string]bool{"1": true, "2": true, "3": true, "4": true}
	for category, m := range result {
		assert.Equal(t, len(m.MatchedIDs), m.Count, category)
		for _, id := range m.MatchedIDs {
			assert.True(t, ids[id], "unknown id %s in %s", id, category)
		}
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	records := []Record{
		NewRecord("1", "timestamp dependence"),
		NewRecord("2", "block.timestamp and randomness"),
	}
	table := CategoryTable{
		"timestamp":  {"timestamp", "block.timestamp"},
		"randomness": {"random"},
	}

	first := Categorize(records, table)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Categorize(records, table))
	}
}

func TestCategorize_DoesNotMutateTable(t *testing.T) {
	table := CategoryTable{"dos": {"Denial Of Service", "DoS"}}
	Categorize([]Record{NewRecord("1", "denial of service")}, table)
	assert.Equal(t, []string{"Denial Of Service", "DoS"}, table["dos"])
}

func TestMatchResult_TotalAndCounts(t *testing.T) {
	result := MatchResult{
		"a": {Count: 2, MatchedIDs: []string{"1", "2"}},
		"b": {Count: 1, MatchedIDs: []string{"2"}},
	}
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, result.Counts())
}
