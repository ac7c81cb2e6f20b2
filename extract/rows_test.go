package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxquotes/storage/types"
)

const sbsLabel = "Dólar de N.A."

func newSBSLookup() *RowLookup {
	return NewRowLookup(
		types.SourceSBS,
		DefaultValidator(),
		sbsLabel,
		2,
		3,
		[]RowStrategy{
			TableRows("table.rgMasterTable"),
			LabelCells(),
			AnyRow(),
		},
	)
}

func TestRowLookup_Lookup(t *testing.T) {
	t.Parallel()

	t.Run("complete row", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, `<html><body>
			<table class="rgMasterTable">
				<tr><th>Moneda</th><th>Compra</th><th>Venta</th></tr>
				<tr><td>Dólar de N.A.</td><td>3.776</td><td>3.784</td></tr>
				<tr><td>Euro</td><td>4.10</td><td>4.45</td></tr>
			</table>
		</body></html>`)

		// three decimals are not plausible
		_, err := newSBSLookup().Lookup(doc)
		assert.ErrorIs(t, err, ErrValidationRejected)

		doc = parseDocument(t, `<html><body>
			<table class="rgMasterTable">
				<tr><th>Moneda</th><th>Compra</th><th>Venta</th></tr>
				<tr><td>Dólar de N.A.</td><td>3.77</td><td>3.78</td></tr>
			</table>
		</body></html>`)

		reading, err := newSBSLookup().Lookup(doc)
		require.NoError(t, err)

		assert.True(t, reading.Complete())
		assert.Equal(t, "3.77", reading.Buy)
		assert.Equal(t, "3.78", reading.Sell)
		assert.Equal(t, "table rows", reading.Strategy)
	})

	t.Run("buy only is partial", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, `<html><body>
			<table class="rgMasterTable">
				<tr><td>Dólar de N.A.</td><td>3.77</td><td></td></tr>
			</table>
		</body></html>`)

		reading, err := newSBSLookup().Lookup(doc)
		require.Error(t, err)

		var failure *Failure

		require.True(t, errors.As(err, &failure))
		assert.Equal(t, KindPartialQuote, failure.Kind)
		assert.ErrorIs(t, err, ErrPartialQuote)
		assert.NotErrorIs(t, err, ErrNoQuoteFound)

		assert.True(t, reading.Partial())
		assert.False(t, reading.Complete())
		assert.Equal(t, "3.77", reading.Buy)
		assert.Empty(t, reading.Sell)
	})

	t.Run("label match ignores accents and case", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, `<html><body>
			<table id="cambio">
				<tr><td>  DOLAR   de n.a. </td><td>3.70</td><td>3.75</td></tr>
			</table>
		</body></html>`)

		reading, err := newSBSLookup().Lookup(doc)
		require.NoError(t, err)

		assert.Equal(t, "3.70", reading.Buy)
		assert.Equal(t, "3.75", reading.Sell)
		assert.Equal(t, "label cells", reading.Strategy)
	})

	t.Run("complete row preferred over an earlier partial", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, `<html><body>
			<table class="rgMasterTable">
				<tr><td>Dólar de N.A.</td><td>-</td><td>3.78</td></tr>
			</table>
			<table>
				<tr><td>Dólar de N.A.</td><td>3.71</td><td>3.79</td></tr>
			</table>
		</body></html>`)

		reading, err := newSBSLookup().Lookup(doc)
		require.NoError(t, err)

		assert.True(t, reading.Complete())
		assert.Equal(t, "3.71", reading.Buy)
	})

	t.Run("no labeled row", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, `<html><body>
			<table><tr><td>Euro</td><td>4.10</td><td>4.45</td></tr></table>
		</body></html>`)

		reading, err := newSBSLookup().Lookup(doc)
		require.Error(t, err)

		var failure *Failure

		require.True(t, errors.As(err, &failure))
		assert.Equal(t, KindNoQuoteFound, failure.Kind)
		assert.True(t, reading.Empty())
	})
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dolar de n.a.", fold("Dólar de  N.A."))
	assert.Equal(t, "cotizacion", fold("COTIZACIÓN"))
}
