/*
Package gst is a media pipeline engine. Elements are connected with pads
into a graph, driven through the NULL, READY, PAUSED and PLAYING states and
exchange reference-counted buffers on streaming goroutines.

# Elements

Elements are created by factories of a Registry:

	src, _ := gst.Make("appsrc", "src")
	sink, _ := gst.Make("appsink", "sink")

A Bin owns its children and changes their states together, sinks first.
A Pipeline is the top-level bin with a Bus. Elements of the same bin are
linked with Link, which negotiates caps of the pads. ParseLaunch builds the
same graph from a description:

	e, err := gst.ParseLaunch("appsrc name=src ! identity ! appsink name=sink")

# States

SetState walks the element through all intermediate states. Sinks complete
READY_TO_PAUSED asynchronously when they receive the first buffer, in that
case SetState returns StateChangeAsync and GetState waits for completion.
Live sources return StateChangeNoPreroll. A failed transition is returned
as *StateChangeError and the element can always be set back to NULL.

# Endpoints

AppSrc pushes application bytes into the pipeline and AppSink gives them
back. Both copy data at the boundary. Callbacks connected to endpoints run
on dedicated goroutines, one callback per endpoint and kind. A callback can
connect or disconnect callbacks of its endpoint, but it must not change
states or block on its own endpoint.

# Messages

Elements post messages to the Bus of their pipeline. The application
consumes them with PopFiltered or TimedPopFiltered in post order.
*/
package gst
