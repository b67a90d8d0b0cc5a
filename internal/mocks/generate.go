package mocks

//go:generate mockery --name DocumentStore --srcpkg github.com/aevon-lab/projection-daemon/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name DocumentStores --srcpkg github.com/aevon-lab/projection-daemon/internal/projection --output ./projection --outpkg projectionmocks --with-expecter
//go:generate mockery --name StaleWaiter --srcpkg github.com/aevon-lab/projection-daemon/internal/projection --output ./projection --outpkg projectionmocks --with-expecter
//go:generate mockery --name Databases --srcpkg github.com/aevon-lab/projection-daemon/internal/ingestion --output ./ingestion --outpkg ingestionmocks --with-expecter
//go:generate mockery --name Controller --srcpkg github.com/aevon-lab/projection-daemon/internal/admin --output ./admin --outpkg adminmocks --with-expecter
//go:generate mockery --name HealthChecker --srcpkg github.com/aevon-lab/projection-daemon/internal/server --output ./server --outpkg servermocks --with-expecter
