package worker

import (
	"context"

	"github.com/prabalesh/droidinsight/internal/widget"
)

// WidgetJobName is the unique periodic work name for the widget refresh.
const WidgetJobName = "widget_update_work"

// WidgetJob redraws the widget from the background.
type WidgetJob struct {
	Widget *widget.Widget
}

func (WidgetJob) Name() string { return WidgetJobName }

func (j WidgetJob) Run(ctx context.Context) error {
	_, err := j.Widget.Update(ctx)
	return err
}
