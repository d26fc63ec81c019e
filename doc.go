// Package snappdf exports the document shown in a live browser tab as an
// image-based, paginated PDF, triggered by a click on a control in the page.
//
// The pipeline has four parts:
//
//   - a [Registry] that loads the optional capabilities (surface capture
//     and document assembly) at most once per process,
//   - [Paginate], which slices one tall capture across fixed-size pages,
//   - a [Binder], which keeps the export handler attached to the trigger
//     control while the page re-renders around it,
//   - an [Exporter], which runs one click-to-completion session.
//
// # Watching a page
//
//	reg := snappdf.NewRegistry(log)
//	reg.Register(snappdf.CaptureCapability, snappdf.NewBrowserLoader(snappdf.WithHeadless(false)))
//	reg.Register(snappdf.AssemblyCapability, snappdf.NewAssemblerLoader(""))
//	defer reg.Close()
//
//	v, err := reg.Ensure(ctx, snappdf.CaptureCapability)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("no browser")
//	}
//	page, err := v.(*snappdf.Browser).Open(ctx, "http://localhost:8050/storyboard")
//
//	exp := snappdf.NewExporter(reg,
//	    snappdf.WithDeliverer(snappdf.DirDeliverer{Dir: "downloads"}),
//	    snappdf.WithNotifier(page),
//	)
//	err = snappdf.NewBinder(page, snappdf.DefaultControlID, exp.Handle, log).Run(ctx)
//
// # Page plan
//
// A capture of W×H pixels is scaled to the page width, so its height on
// paper is H*210/W mm on A4. Page n (zero-based) shows the same image
// moved up by n*297 mm:
//
//	l, _ := snappdf.Paginate(2000, 4000, snappdf.A4Portrait)
//	l.Pages()   // 2
//	l.Offsets() // [0 -297]
package snappdf
