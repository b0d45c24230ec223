package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefinitionsByCategory(t *testing.T) {
	reg := NewRegistry()

	all := reg.Definitions()
	require.Len(t, all, len(DefaultWidgetDefinitions()))
	for i := 1; i < len(all); i++ {
		if all[i-1].Code >= all[i].Code {
			t.Fatalf("definitions not sorted: %s before %s", all[i-1].Code, all[i].Code)
		}
	}

	charts := reg.DefinitionsIn("charts")
	codes := make([]string, len(charts))
	for i, def := range charts {
		codes[i] = def.Code
	}
	assert.Equal(t, []string{WidgetEngagementChart, WidgetPerformanceChart, WidgetUnifiedChart}, codes)
	assert.Len(t, reg.DefinitionsIn("grids", "filters"), 3)
	assert.Empty(t, reg.DefinitionsIn("unknown"))
}

func TestRegistryTracksUnattachedDefinitions(t *testing.T) {
	reg := NewRegistry()
	assert.Len(t, reg.Unattached(), len(DefaultWidgetDefinitions()))

	require.NoError(t, reg.RegisterProviders(CampaignProviders(CampaignProviderOptions{})))
	assert.Empty(t, reg.Unattached())

	require.NoError(t, reg.RegisterDefinition(WidgetDefinition{Code: "campaign.widget.roi", Name: "ROI"}))
	assert.Equal(t, []string{"campaign.widget.roi"}, reg.Unattached())

	err := reg.RegisterProvider("campaign.widget.unknown", ProviderFunc(func(context.Context, WidgetContext) (WidgetData, error) {
		return nil, nil
	}))
	require.Error(t, err)
}
