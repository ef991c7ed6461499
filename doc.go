/*
go-deepfield turns one large astronomical image into a catalog of individually
addressable features.  Bright regions such as stars and galaxies are found by
thresholding and connected component analysis, cropped out with an alpha
channel derived from their luminance, and given a synthetic 3D placement so
they can be displayed as layers in a spatial scene.

The catalog is built once with Build and is read-only afterwards, so it can be
shared between any number of goroutines, such as HTTP handlers, without
locking.

See the example/threedeeify directory for a complete program that downloads
the JWST first deep field images, builds the catalog and serves it over HTTP.
*/
package deepfield
